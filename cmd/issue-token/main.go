// Command issue-token signs a session token for local development and
// scripted API calls. The secret is read from JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/auth"
	"github.com/tendant/simple-blog/pkg/blog/config"
)

func main() {
	var (
		id     = flag.String("id", "", "author id (random when empty)")
		name   = flag.String("name", "Local Author", "full name")
		email  = flag.String("email", "author@example.com", "email")
		avatar = flag.String("avatar", blog.DefaultImageURL, "profile image URL")
		role   = flag.String("role", string(blog.RoleUser), "role (USER or ADMIN)")
		ttl    = flag.Duration("ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	)
	flag.Parse()

	if err := issue(*id, *name, *email, *avatar, *role, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "issue-token:", err)
		os.Exit(1)
	}
}

func issue(id, name, email, avatar, role string, ttl time.Duration) error {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if ttl == 0 {
		ttl = cfg.TokenTTL
	}

	authorID := uuid.New()
	if id != "" {
		if authorID, err = uuid.Parse(id); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
	}

	svc, err := auth.New(cfg.JWTSecret, auth.WithTTL(ttl))
	if err != nil {
		return err
	}
	token, err := svc.IssueToken(blog.Identity{
		ID:              authorID,
		FullName:        name,
		Email:           email,
		ProfileImageURL: avatar,
		Role:            blog.Role(role),
	})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
