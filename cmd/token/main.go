// Command token issues HS256 tokens signed with the server's JWT_SECRET, for
// admin tooling and local clients that need to call the notification API.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/gateway/middleware"
	"github.com/saransh1220/ev-notify/internal/shared/infrastructure/config"
	"github.com/saransh1220/ev-notify/internal/shared/utils"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("could not read .env file", "error", err)
	}
	if err := run(os.Args[1:], config.Load().JWT, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(args []string, jwtCfg config.JWTConfig, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("user", "", "user id (uuid); a random id is used when empty")
	email := fs.String("email", "", "email claim")
	role := fs.String("role", "user", "role claim, e.g. "+middleware.RoleAdmin)
	ttl := fs.Duration("ttl", jwtCfg.Expiry, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userID := uuid.New()
	if *user != "" {
		parsed, err := uuid.Parse(*user)
		if err != nil {
			return fmt.Errorf("invalid -user: %w", err)
		}
		userID = parsed
	}
	if *ttl <= 0 {
		return fmt.Errorf("-ttl must be positive")
	}

	token, err := utils.GenerateToken(userID, *email, *role, jwtCfg.Secret, *ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
