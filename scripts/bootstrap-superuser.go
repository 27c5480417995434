package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/perks/perks/internal/auth"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/repository"
	"github.com/perks/perks/internal/service"
)

type output struct {
	UserID  int64  `json:"user_id"`
	UTORid  string `json:"utorid"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Created bool   `json:"created"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		utorid      = flag.String("utorid", "", "UTORid of the superuser (7-8 alphanumerics)")
		name        = flag.String("name", "Superuser", "Display name")
		email       = flag.String("email", "", "University email (@mail.utoronto.ca)")
		password    = flag.String("password", os.Getenv("SUPERUSER_PASSWORD"), "Password; defaults to $SUPERUSER_PASSWORD")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fail("DATABASE_URL is required")
	}
	if *utorid == "" || *email == "" {
		fail("-utorid and -email are required")
	}
	if err := service.ValidatePassword(*password); err != nil {
		fail(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fail("connect database: " + err.Error())
	}
	defer repo.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fail("hash password: " + err.Error())
	}

	user, created, err := ensureSuperuser(ctx, repo, strings.ToLower(*utorid), *name, strings.ToLower(*email))
	if err != nil {
		fail(err.Error())
	}
	if err := repo.SetPassword(ctx, user.ID, hash); err != nil {
		fail("set password: " + err.Error())
	}

	out := output{
		UserID:  user.ID,
		UTORid:  user.UTORid,
		Email:   user.Email,
		Role:    string(user.Role),
		Created: created,
	}

	switch strings.ToLower(*format) {
	case "plain":
		verb := "updated"
		if created {
			verb = "created"
		}
		fmt.Printf("superuser %s %s (id %d)\n", out.UTORid, verb, out.UserID)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fail("invalid format; use plain or json")
	}
}

// ensureSuperuser creates the user or promotes an existing one.
// The account is marked verified either way.
func ensureSuperuser(ctx context.Context, repo *repository.Repository, utorid, name, email string) (*model.User, bool, error) {
	existing, err := repo.GetUserByUTORid(ctx, utorid)
	switch {
	case err == nil:
		if existing.Email != email {
			return nil, false, fmt.Errorf("user %s exists with different email: %s", utorid, existing.Email)
		}
		existing.Role = model.RoleSuperuser
		existing.Verified = true
		if err := repo.UpdateUser(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("promote user: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	user := &model.User{
		UTORid:   utorid,
		Name:     name,
		Email:    email,
		Role:     model.RoleSuperuser,
		Verified: true,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
