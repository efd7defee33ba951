// Package upload manages the temporary local copies of import documents.
//
// Uploaded files and documents fetched from object storage are written to a
// TempFile whose Release deletes it. Release never fails from the caller's
// point of view: deletion errors are logged. Use With, or defer Release,
// so the copy is removed on every exit path.
package upload
