package http

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/driftloop/mailcore/internal/domain"
)

const exportTokenTTL = 5 * time.Minute

// exportClaims carries the export filter through the signed link so the
// download endpoint can stay unauthenticated (a browser following a
// mailed or copy-pasted link has no admin session or API key to send)
// while still only ever exporting what the admin who minted the link
// was authorized to see.
type exportClaims struct {
	Status      string `json:"status"`
	ContactList string `json:"contact_list_id"`
	jwt.RegisteredClaims
}

func signExportToken(secret string, filter csvExportFilter) (string, error) {
	claims := exportClaims{
		Status:      string(filter.Status),
		ContactList: filter.ContactList,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(exportTokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign export token: %w", err)
	}
	return token, nil
}

func parseExportToken(secret, raw string) (csvExportFilter, error) {
	var claims exportClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return csvExportFilter{}, fmt.Errorf("parse export token: %w", err)
	}
	return csvExportFilter{Status: domain.SubscriberStatus(claims.Status), ContactList: claims.ContactList}, nil
}

// csvExportFilter mirrors csv.ExportFilter; kept as its own type so this
// file doesn't need to import internal/csv just for the claims shape.
type csvExportFilter struct {
	Status      domain.SubscriberStatus
	ContactList string
}
