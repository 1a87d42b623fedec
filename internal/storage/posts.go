package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/wondermap/wondermap-api/internal/travel"
)

const postColumns = `p.id, p.owner_email, p.map_name, p.map_type, p.is_recommended, p.likes, p.created_at, p.updated_at`

func scanPost(s scanner) (travel.Post, error) {
	var p travel.Post
	err := s.Scan(
		&p.ID,
		&p.OwnerEmail,
		&p.MapName,
		&p.MapType,
		&p.IsRecommended,
		&p.Likes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// CreatePost inserts a post and returns its id.
func (r *Repository) CreatePost(ctx context.Context, p travel.Post) (string, error) {
	const q = `
		INSERT INTO posts (id, owner_email, map_name, map_type, is_recommended)
		VALUES ($1, $2, $3, $4, $5)
	`

	id := r.newID()
	if _, err := r.q.Exec(ctx, q, id, p.OwnerEmail, p.MapName, p.MapType, p.IsRecommended); err != nil {
		return "", fmt.Errorf("inserting post for %s: %w", p.OwnerEmail, err)
	}
	return id.String(), nil
}

// GetPost returns a post by id, or travel.ErrNotFound.
func (r *Repository) GetPost(ctx context.Context, id string) (travel.Post, error) {
	pid, err := parseID("post", id)
	if err != nil {
		return travel.Post{}, err
	}

	const q = `SELECT ` + postColumns + ` FROM posts p WHERE p.id = $1`

	p, err := scanPost(r.q.QueryRow(ctx, q, pid))
	if err != nil {
		return travel.Post{}, notFound(err, "querying post %s", id)
	}
	return p, nil
}

// UpdatePost renames a post and changes its type.
func (r *Repository) UpdatePost(ctx context.Context, id, mapName, mapType string) error {
	pid, err := parseID("post", id)
	if err != nil {
		return err
	}

	const q = `
		UPDATE posts
		SET map_name = $2, map_type = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "updating post "+id, q, pid, mapName, mapType)
}

// DeletePost removes a post together with its spots.
func (r *Repository) DeletePost(ctx context.Context, id string) error {
	pid, err := parseID("post", id)
	if err != nil {
		return err
	}
	return r.execOne(ctx, "deleting post "+id, `DELETE FROM posts WHERE id = $1`, pid)
}

// ListPostsByOwner returns email's posts, newest first.
func (r *Repository) ListPostsByOwner(ctx context.Context, email string, limit int) ([]travel.Post, error) {
	const q = `
		SELECT ` + postColumns + `
		FROM posts p
		WHERE p.owner_email = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, q, email, limit)
	if err != nil {
		return nil, fmt.Errorf("querying posts of %s: %w", email, err)
	}
	return collect(rows, "post", scanPost)
}

// RecommendedPost returns one of email's posts flagged as recommended, or
// travel.ErrNotFound.
func (r *Repository) RecommendedPost(ctx context.Context, email string) (travel.Post, error) {
	const q = `
		SELECT ` + postColumns + `
		FROM posts p
		WHERE p.owner_email = $1 AND p.is_recommended
		ORDER BY p.created_at DESC
		LIMIT 1
	`

	p, err := scanPost(r.q.QueryRow(ctx, q, email))
	if err != nil {
		return travel.Post{}, notFound(err, "querying recommended post of %s", email)
	}
	return p, nil
}

// ListPublicPosts returns the newest posts across all users.
func (r *Repository) ListPublicPosts(ctx context.Context, limit int) ([]travel.Post, error) {
	const q = `
		SELECT ` + postColumns + `
		FROM posts p
		ORDER BY p.created_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying public posts: %w", err)
	}
	return collect(rows, "post", scanPost)
}

// SearchPosts returns the newest posts whose map name or type contains term,
// ignoring case.
func (r *Repository) SearchPosts(ctx context.Context, term string, limit int) ([]travel.Post, error) {
	const q = `
		SELECT ` + postColumns + `
		FROM posts p
		WHERE p.map_name ILIKE $1 OR p.map_type ILIKE $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, q, "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching posts for %q: %w", term, err)
	}
	return collect(rows, "post", scanPost)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

const spotColumns = `id, post_id, name, description, lat, lng, photo_url, created_at, updated_at`

func scanSpot(s scanner) (travel.Spot, error) {
	var sp travel.Spot
	err := s.Scan(
		&sp.ID,
		&sp.PostID,
		&sp.Name,
		&sp.Description,
		&sp.Lat,
		&sp.Lng,
		&sp.PhotoURL,
		&sp.CreatedAt,
		&sp.UpdatedAt,
	)
	return sp, err
}

// ListSpots returns the spots of a post in creation order.
func (r *Repository) ListSpots(ctx context.Context, postID string) ([]travel.Spot, error) {
	pid, err := parseID("post", postID)
	if err != nil {
		return []travel.Spot{}, nil
	}

	const q = `SELECT ` + spotColumns + ` FROM spots WHERE post_id = $1 ORDER BY created_at`

	rows, err := r.q.Query(ctx, q, pid)
	if err != nil {
		return nil, fmt.Errorf("querying spots of post %s: %w", postID, err)
	}
	return collect(rows, "spot", scanSpot)
}

// GetSpot returns one spot of a post, or travel.ErrNotFound.
func (r *Repository) GetSpot(ctx context.Context, postID, spotID string) (travel.Spot, error) {
	pid, err := parseID("post", postID)
	if err != nil {
		return travel.Spot{}, err
	}
	sid, err := parseID("spot", spotID)
	if err != nil {
		return travel.Spot{}, err
	}

	const q = `SELECT ` + spotColumns + ` FROM spots WHERE post_id = $1 AND id = $2`

	sp, err := scanSpot(r.q.QueryRow(ctx, q, pid, sid))
	if err != nil {
		return travel.Spot{}, notFound(err, "querying spot %s", spotID)
	}
	return sp, nil
}

// CreateSpot inserts a spot on sp.PostID and returns its id.
func (r *Repository) CreateSpot(ctx context.Context, sp travel.Spot) (string, error) {
	pid, err := parseID("post", sp.PostID)
	if err != nil {
		return "", err
	}

	const q = `
		INSERT INTO spots (id, post_id, name, description, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := r.newID()
	if _, err := r.q.Exec(ctx, q, id, pid, sp.Name, sp.Description, sp.Lat, sp.Lng); err != nil {
		return "", fmt.Errorf("inserting spot on post %s: %w", sp.PostID, err)
	}
	return id.String(), nil
}

// UpdateSpot changes a spot's name and description.
func (r *Repository) UpdateSpot(ctx context.Context, postID, spotID, name, description string) error {
	pid, err := parseID("post", postID)
	if err != nil {
		return err
	}
	sid, err := parseID("spot", spotID)
	if err != nil {
		return err
	}

	const q = `
		UPDATE spots
		SET name = $3, description = $4, updated_at = NOW()
		WHERE post_id = $1 AND id = $2
	`
	return r.execOne(ctx, "updating spot "+spotID, q, pid, sid, name, description)
}

// SetSpotPhoto stores the photo URL of a spot.
func (r *Repository) SetSpotPhoto(ctx context.Context, postID, spotID, url string) error {
	pid, err := parseID("post", postID)
	if err != nil {
		return err
	}
	sid, err := parseID("spot", spotID)
	if err != nil {
		return err
	}

	const q = `
		UPDATE spots
		SET photo_url = $3, updated_at = NOW()
		WHERE post_id = $1 AND id = $2
	`
	return r.execOne(ctx, "setting photo of spot "+spotID, q, pid, sid, url)
}

// DeleteSpot removes a spot from a post.
func (r *Repository) DeleteSpot(ctx context.Context, postID, spotID string) error {
	pid, err := parseID("post", postID)
	if err != nil {
		return err
	}
	sid, err := parseID("spot", spotID)
	if err != nil {
		return err
	}
	return r.execOne(ctx, "deleting spot "+spotID, `DELETE FROM spots WHERE post_id = $1 AND id = $2`, pid, sid)
}
