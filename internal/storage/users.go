package storage

import (
	"context"
	"fmt"

	"github.com/wondermap/wondermap-api/internal/travel"
)

// GetProfile returns the stored profile for email, or travel.ErrNotFound.
func (r *Repository) GetProfile(ctx context.Context, email string) (travel.Profile, error) {
	const q = `
		SELECT email, user_name, user_label, introduction, photo_url, first_login,
		       following, favorites, created_at
		FROM users
		WHERE email = $1
	`

	var p travel.Profile
	err := r.q.QueryRow(ctx, q, email).Scan(
		&p.Email,
		&p.UserName,
		&p.UserLabel,
		&p.Introduction,
		&p.PhotoURL,
		&p.FirstLogin,
		&p.Following,
		&p.Favorites,
		&p.CreatedAt,
	)
	if err != nil {
		return travel.Profile{}, notFound(err, "querying profile %s", email)
	}
	return p, nil
}

// UpsertProfile creates or updates the editable profile fields. A nil
// PhotoURL keeps the stored photo.
func (r *Repository) UpsertProfile(ctx context.Context, p travel.Profile) error {
	const q = `
		INSERT INTO users (email, user_name, user_label, introduction, first_login, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE
		SET user_name    = EXCLUDED.user_name,
		    user_label   = EXCLUDED.user_label,
		    introduction = EXCLUDED.introduction,
		    first_login  = EXCLUDED.first_login,
		    photo_url    = COALESCE(EXCLUDED.photo_url, users.photo_url),
		    updated_at   = NOW()
	`

	if _, err := r.q.Exec(ctx, q, p.Email, p.UserName, p.UserLabel, p.Introduction, p.FirstLogin, p.PhotoURL); err != nil {
		return fmt.Errorf("upserting profile %s: %w", p.Email, err)
	}
	return nil
}

// SetProfilePhoto stores the photo URL, creating the user row when needed.
func (r *Repository) SetProfilePhoto(ctx context.Context, email, url string) error {
	const q = `
		INSERT INTO users (email, photo_url)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
		SET photo_url = EXCLUDED.photo_url, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, q, email, url); err != nil {
		return fmt.Errorf("setting profile photo for %s: %w", email, err)
	}
	return nil
}

// AddFavorite marks postID as a favorite of email. Repeated calls are no-ops.
func (r *Repository) AddFavorite(ctx context.Context, email, postID string) error {
	return r.addToList(ctx, "favorites", email, postID)
}

// RemoveFavorite removes postID from email's favorites.
func (r *Repository) RemoveFavorite(ctx context.Context, email, postID string) error {
	return r.removeFromList(ctx, "favorites", email, postID)
}

// AddFollowing makes email follow target. Repeated calls are no-ops.
func (r *Repository) AddFollowing(ctx context.Context, email, target string) error {
	return r.addToList(ctx, "following", email, target)
}

// RemoveFollowing makes email stop following target.
func (r *Repository) RemoveFollowing(ctx context.Context, email, target string) error {
	return r.removeFromList(ctx, "following", email, target)
}

// column is one of the two fixed array column names, never user input.
func (r *Repository) addToList(ctx context.Context, column, email, value string) error {
	q := fmt.Sprintf(`
		INSERT INTO users (email, %[1]s)
		VALUES ($1, ARRAY[$2::text])
		ON CONFLICT (email) DO UPDATE
		SET %[1]s = CASE
		        WHEN $2 = ANY(users.%[1]s) THEN users.%[1]s
		        ELSE array_append(users.%[1]s, $2)
		    END,
		    updated_at = NOW()
	`, column)

	if _, err := r.q.Exec(ctx, q, email, value); err != nil {
		return fmt.Errorf("adding %s to %s of %s: %w", value, column, email, err)
	}
	return nil
}

func (r *Repository) removeFromList(ctx context.Context, column, email, value string) error {
	q := fmt.Sprintf(`
		UPDATE users
		SET %[1]s = array_remove(%[1]s, $2), updated_at = NOW()
		WHERE email = $1
	`, column)

	if _, err := r.q.Exec(ctx, q, email, value); err != nil {
		return fmt.Errorf("removing %s from %s of %s: %w", value, column, email, err)
	}
	return nil
}

// ListFavoritePosts returns email's favorite posts in the order they were
// added. Favorites pointing at deleted posts are skipped.
func (r *Repository) ListFavoritePosts(ctx context.Context, email string) ([]travel.Post, error) {
	const q = `
		SELECT ` + postColumns + `
		FROM users u
		JOIN posts p ON p.id::text = ANY(u.favorites)
		WHERE u.email = $1
		ORDER BY array_position(u.favorites, p.id::text)
	`

	rows, err := r.q.Query(ctx, q, email)
	if err != nil {
		return nil, fmt.Errorf("querying favorites of %s: %w", email, err)
	}
	return collect(rows, "post", scanPost)
}

// ListFollowing returns the profiles email follows. Users without a stored
// profile are skipped.
func (r *Repository) ListFollowing(ctx context.Context, email string) ([]travel.FollowedUser, error) {
	const q = `
		SELECT f.email, f.user_name, f.introduction, f.photo_url
		FROM users u
		JOIN users f ON f.email = ANY(u.following)
		WHERE u.email = $1
		ORDER BY array_position(u.following, f.email)
	`

	rows, err := r.q.Query(ctx, q, email)
	if err != nil {
		return nil, fmt.Errorf("querying following of %s: %w", email, err)
	}
	return collect(rows, "followed user", func(s scanner) (travel.FollowedUser, error) {
		var u travel.FollowedUser
		err := s.Scan(&u.Email, &u.UserName, &u.Introduction, &u.PhotoURL)
		return u, err
	})
}
