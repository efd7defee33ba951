package loader

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeature struct {
	name    string
	enabled bool
	err     error
	loaded  bool
}

func (s *stubFeature) Name() string    { return s.name }
func (s *stubFeature) IsEnabled() bool { return s.enabled }
func (s *stubFeature) Load(app fiber.Router) error {
	if s.err != nil {
		return s.err
	}
	s.loaded = true
	app.Get("/"+s.name, func(c *fiber.Ctx) error { return c.SendString(s.name) })
	return nil
}

func TestManager_LoadAll(t *testing.T) {
	one := &stubFeature{name: "one", enabled: true}
	off := &stubFeature{name: "off", enabled: false}
	two := &stubFeature{name: "two", enabled: true}

	mgr := NewManager()
	mgr.Register(one)
	mgr.Register(off)
	mgr.Register(two)
	assert.Len(t, mgr.Features(), 3)

	app := fiber.New()
	loaded, err := mgr.LoadAll(app)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, loaded)
	assert.False(t, off.loaded)

	resp, err := app.Test(httptest.NewRequest("GET", "/two", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/off", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestManager_LoadAllStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	mgr := NewManager()
	mgr.Register(&stubFeature{name: "first", enabled: true})
	mgr.Register(&stubFeature{name: "broken", enabled: true, err: boom})
	last := &stubFeature{name: "last", enabled: true}
	mgr.Register(last)

	loaded, err := mgr.LoadAll(fiber.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"first"}, loaded)
	assert.False(t, last.loaded)
}
