package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/auth"
)

func tokenCommand(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "", "who the token is issued to")
	role := fs.String("role", auth.RoleViewer, "viewer or monitor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}
	if *role != auth.RoleViewer && *role != auth.RoleMonitor {
		return fmt.Errorf("unknown role %q", *role)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if a.cfg.JWT.SecretKey == "" {
		return errors.New("jwt.secretKey is not configured")
	}

	ttl := time.Duration(a.cfg.JWT.ExpirationMinutes) * time.Minute
	token, err := auth.NewJWTManager(a.cfg.JWT.SecretKey, ttl).GenerateToken(*subject, *role)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, map[string]any{
		"token":      token,
		"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
