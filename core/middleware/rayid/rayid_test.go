package rayid

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(New())
	app.Get("/", func(c *fiber.Ctx) error {
		id, _ := c.Locals(LocalsKey).(string)
		return c.SendString(id)
	})
	return app
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"Generated", "", false},
		{"Reused", "client-ray", true},
		{"TooLong", strings.Repeat("x", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.incoming != "" {
				req.Header.Set(Header, tt.incoming)
			}
			resp, err := newApp().Test(req)
			require.NoError(t, err)

			id := resp.Header.Get(Header)
			if tt.reuse {
				assert.Equal(t, tt.incoming, id)
			} else {
				_, err := uuid.Parse(id)
				assert.NoError(t, err)
			}

			buf := new(strings.Builder)
			_, _ = io.Copy(buf, resp.Body)
			assert.Equal(t, id, buf.String())
		})
	}
}
