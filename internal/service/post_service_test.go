package service

import (
	"context"
	"strings"
	"testing"

	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreatePost(t *testing.T) {
	store := newStore()
	svc := NewPostService(store.Posts(), store.Votes(), store.Profiles())
	user := uuid.New()

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID:       user,
		SideA:        " <b>Cats</b> & more ",
		SideB:        "Dogs",
		Category:     "food",
		Lat:          ptr(40.7),
		Long:         ptr(-74.0),
		LocationName: ptr("Brooklyn, NY"),
		Description:  ptr("   "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cats & more", post.SideA)
	assert.Equal(t, models.CategoryFood, post.Category)
	assert.Nil(t, post.Description)
	assert.Zero(t, post.VoteCount)

	stored, err := store.Posts().GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CreatedBy)
	assert.Equal(t, user, *stored.CreatedBy)
	assert.Equal(t, 1, store.EnsureCalls)
}

func TestPostService_CreatePostValidation(t *testing.T) {
	store := newStore()
	svc := NewPostService(store.Posts(), store.Votes(), store.Profiles())
	valid := func() CreatePostInput {
		return CreatePostInput{UserID: uuid.New(), SideA: "Yes", SideB: "No", Category: "OTHER"}
	}

	tests := []struct {
		name   string
		mutate func(*CreatePostInput)
		code   string
	}{
		{"anonymous", func(in *CreatePostInput) { in.UserID = uuid.Nil }, models.CodeUnauthorized},
		{"empty side a", func(in *CreatePostInput) { in.SideA = "  " }, models.CodeValidation},
		{"markup only side b", func(in *CreatePostInput) { in.SideB = "<img src=x>" }, models.CodeValidation},
		{"long side", func(in *CreatePostInput) { in.SideA = strings.Repeat("a", 141) }, models.CodeValidation},
		{"unknown category", func(in *CreatePostInput) { in.Category = "ASTROLOGY" }, models.CodeValidation},
		{"missing category", func(in *CreatePostInput) { in.Category = "" }, models.CodeValidation},
		{"lat without long", func(in *CreatePostInput) { in.Lat = ptr(1.0) }, models.CodeValidation},
		{"long description", func(in *CreatePostInput) { in.Description = ptr(strings.Repeat("d", 1001)) }, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := svc.CreatePost(context.Background(), in)
			assert.True(t, models.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestPostService_GetPost(t *testing.T) {
	store := newStore()
	post := seedPosts(store, 1, models.CategoryPolitics)[0]
	viewer := uuid.New()
	store.AddVote(post.ID, viewer, -80)
	store.AddVote(post.ID, uuid.New(), 0)
	store.AddVote(post.ID, uuid.New(), 80)
	svc := NewPostService(store.Posts(), store.Votes(), store.Profiles())

	got, err := svc.GetPost(context.Background(), &viewer, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.VoteCount)
	assert.InDelta(t, 0, got.VoteAverage, 1e-9)
	assert.InDelta(t, 65.32, got.VoteStdDev, 0.01)
	assert.Equal(t, -80, got.UserVote)

	anon, err := svc.GetPost(context.Background(), nil, post.ID)
	require.NoError(t, err)
	assert.Zero(t, anon.UserVote)
}

func TestPostService_GetPostCachedAcrossViewers(t *testing.T) {
	mr := withMiniredis(t)
	store := newStore()
	post := seedPosts(store, 1, models.CategoryPolitics)[0]
	viewer := uuid.New()
	store.AddVote(post.ID, viewer, 40)
	svc := NewPostService(store.Posts(), store.Votes(), store.Profiles())
	ctx := context.Background()

	own, err := svc.GetPost(ctx, &viewer, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, own.UserVote)
	assert.True(t, mr.Exists("post:"+post.ID.String()))

	anon, err := svc.GetPost(ctx, nil, post.ID)
	require.NoError(t, err)
	assert.Zero(t, anon.UserVote, "cached detail must not leak another viewer's vote")
	assert.Equal(t, 1, anon.VoteCount)
}

func TestPostService_GetPostNotFound(t *testing.T) {
	store := newStore()
	svc := NewPostService(store.Posts(), store.Votes(), store.Profiles())

	_, err := svc.GetPost(context.Background(), nil, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
