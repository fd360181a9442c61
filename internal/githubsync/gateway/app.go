package gateway

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"contribution-metrics/pkg/requestcontext"
)

// appJWTLifetime stays under GitHub's ten minute ceiling.
const appJWTLifetime = 9 * time.Minute

type appAuth struct {
	id  int64
	key *rsa.PrivateKey
}

func newAppAuth(appID int64, privateKeyPEM string) (*appAuth, error) {
	// Keys passed through env files often carry escaped newlines.
	pem := strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("parse github app private key: %w", err)
	}
	return &appAuth{id: appID, key: key}, nil
}

// sign issues the short-lived RS256 JWT that authenticates as the App.
// IssuedAt is backdated to absorb clock drift.
func (a *appAuth) sign(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(a.id, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign github app jwt: %w", err)
	}
	return signed, nil
}

// InstallationToken issues a fresh installation access token for the App
// installed on org.
func (g *Gateway) InstallationToken(ctx context.Context, org string) (string, time.Time, error) {
	if g.app == nil {
		return "", time.Time{}, ErrAppNotConfigured
	}
	signed, err := g.app.sign(requestcontext.Now(ctx))
	if err != nil {
		return "", time.Time{}, err
	}

	client := g.rest(signed)
	installation, _, err := client.Apps.FindOrganizationInstallation(ctx, org)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("find installation for %s: %w", org, classify(err))
	}
	token, _, err := client.Apps.CreateInstallationToken(ctx, installation.GetID(), nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create installation token for %s: %w", org, classify(err))
	}
	g.logger.InfoContext(ctx, "issued github installation token",
		"organization", org,
		"installation_id", installation.GetID(),
		"expires_at", token.GetExpiresAt().Time,
	)
	return token.GetToken(), token.GetExpiresAt().Time, nil
}
