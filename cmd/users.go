package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/repositories"
	"github.com/desertthunder/musive/internal/web"
	"github.com/urfave/cli/v3"
)

// UserCreate stores a new user.
func (r *Runner) UserCreate(ctx context.Context, cmd *cli.Command) error {
	_, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user := models.NewUser(cmd.String("email"), cmd.String("name"))
	if err := repositories.NewUserRepository(db).Create(user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Info("user created", "id", user.ID, "email", user.Email)
	r.writePlain("✓ Created user %s\n", user.Email)
	r.writePlain("  ID: %s\n", user.ID)
	return nil
}

// UserToken issues a session token for the user, valid for session.ttl.
//
// Only the token is written so the output can be captured by scripts.
func (r *Runner) UserToken(ctx context.Context, cmd *cli.Command) error {
	config, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := r.userByEmail(db, cmd)
	if err != nil {
		return err
	}

	token, err := web.IssueToken([]byte(config.Session.Secret), user.ID, config.Session.TTL.Duration)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", token)
}

// UserList prints every active user.
func (r *Runner) UserList(ctx context.Context, cmd *cli.Command) error {
	_, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := repositories.NewUserRepository(db).List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(users, true)
	}

	r.writePlain("Found %d users:\n\n", len(users))
	for i, u := range users {
		r.writePlain("%d. %s", i+1, u.Email)
		if u.Name != "" {
			r.writePlain(" (%s)", u.Name)
		}
		r.writePlain("\n   ID: %s\n", u.ID)
	}
	return nil
}
