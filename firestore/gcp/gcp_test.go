package gcp

import (
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
)

func TestRelativePath(t *testing.T) {
	assert.Equal(t, "users/42", RelativePath("projects/p/databases/(default)/documents/users/42"))
	assert.Equal(t, "users/42/posts/1", RelativePath("projects/p/databases/db/documents/users/42/posts/1"))
	assert.Equal(t, "users/42", RelativePath("users/42"))
}

func TestRef(t *testing.T) {
	r := ref(&firestore.DocumentRef{ID: "42", Path: "projects/p/databases/(default)/documents/users/42"})
	assert.Equal(t, "users/42", r.Path)
	assert.Equal(t, "42", r.ID)
	assert.Empty(t, ref(nil).Path)
}
