package firestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	ID    string `firestore:"id"`
	Title string `firestore:"title"`
	Ref   Ref    `firestore:"ref"`
}

func seedUsers(fs *memFirestore) {
	fs.put("users/a", map[string]any{"name": "Ann"})
	fs.put("users/b", map[string]any{"name": "Bob"})
	fs.put("users/c", map[string]any{"name": "Cid"})
	fs.put("teams/t", map[string]any{"name": "other"})
}

func TestCollectionState(t *testing.T) {
	fs := newMemFirestore()
	seedUsers(fs)

	constraints := []Constraint{Where("age", ">", 18), OrderBy("name", Asc), Limit(10)}

	s := NewCollectionState[user](context.Background(), fs, "users", constraints, Options[user]{})
	defer s.Close()

	items := s.Get()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{items[0].ID, items[1].ID, items[2].ID})

	meta := s.Meta()
	require.NotNil(t, meta.First)
	assert.Equal(t, "Ann", meta.First.Name)
	assert.Equal(t, "Cid", meta.Last.Name)
	assert.False(t, s.Loading())

	require.Len(t, fs.queries, 1)
	assert.Equal(t, Query{Path: "users", Constraints: constraints}, fs.queries[0])
	assert.Equal(t, fs.queries[0], s.Query())
}

func TestCollectionState_Fields(t *testing.T) {
	fs := newMemFirestore()
	fs.put("posts/p1", map[string]any{"title": "hello", "id": "stored"})

	s := NewCollectionState[post](context.Background(), fs, "posts", nil, Options[post]{RefField: "ref"})
	defer s.Close()

	items := s.Get()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, Ref{Path: "posts/p1", ID: "p1"}, items[0].Ref)

	plain := NewCollectionState[post](context.Background(), fs, "posts", nil, Options[post]{IDField: "-"})
	defer plain.Close()

	assert.Equal(t, "stored", plain.Get()[0].ID)
	assert.Empty(t, plain.Get()[0].Ref.Path)
}

func TestCollectionState_Updates(t *testing.T) {
	fs := newMemFirestore()
	seedUsers(fs)

	s := NewCollectionState[user](context.Background(), fs, "users", nil, Options[user]{})
	defer s.Close()

	require.NoError(t, s.Add(context.Background(), "d", user{Name: "Dee"}))
	require.Len(t, s.Get(), 4)
	assert.Equal(t, "Dee", s.Meta().Last.Name)
	assert.Equal(t, "d", s.Meta().Last.ID)

	require.NoError(t, s.Remove(context.Background(), "a"))
	require.Len(t, s.Get(), 3)
	assert.Equal(t, "Bob", s.Meta().First.Name)
}

func TestCollectionState_Empty(t *testing.T) {
	fs := newMemFirestore()

	s := NewCollectionState[user](context.Background(), fs, "users", nil, Options[user]{})
	defer s.Close()

	assert.Empty(t, s.Get())
	assert.Nil(t, s.Meta().First)
	assert.Nil(t, s.Meta().Last)
}

func TestCollectionState_NilHandle(t *testing.T) {
	start := []user{{Name: "cached"}}

	s := NewCollectionState[user](context.Background(), nil, "users", nil, Options[user]{StartList: start})
	defer s.Close()

	assert.False(t, s.Loading())
	assert.Nil(t, s.Err())
	assert.Equal(t, start, s.Get())
	require.NoError(t, s.Add(context.Background(), "x", user{}))
	require.NoError(t, s.Remove(context.Background(), "x"))
}

func TestCollectionState_Once(t *testing.T) {
	fs := newMemFirestore()
	seedUsers(fs)

	s := NewCollectionState[user](context.Background(), fs, "users", nil, Options[user]{Once: true})

	opened, closed := fs.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)

	fs.put("users/z", map[string]any{"name": "Zed"})
	assert.Len(t, s.Get(), 3)
}

func TestCollectionGroupState(t *testing.T) {
	fs := newMemFirestore()
	fs.put("users/1/posts/p1", map[string]any{"title": "one"})
	fs.put("teams/2/posts/p2", map[string]any{"title": "two"})
	fs.put("users/1/drafts/d1", map[string]any{"title": "draft"})

	s := NewCollectionGroupState[post](context.Background(), fs, "posts", Options[post]{})
	defer s.Close()

	items := s.Get()
	require.Len(t, items, 2)
	assert.ElementsMatch(t, []string{"p1", "p2"}, []string{items[0].ID, items[1].ID})
	assert.True(t, s.Query().Group)

	bad := NewCollectionGroupState[post](context.Background(), fs, "users/1/posts", Options[post]{})
	defer bad.Close()

	require.NotNil(t, bad.Err())
}
