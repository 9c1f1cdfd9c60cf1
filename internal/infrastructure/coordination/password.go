package coordination

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
)

// MasterPasswordPath is the node holding the encryption master password.
const MasterPasswordPath = "/fabric/authentication/crypt/password"

// encodedPrefix marks base64 encoded node values.
const encodedPrefix = "ZKENC="

// DecodePassword returns the plain value of a stored password. Values
// without the encoded prefix are stored in plain text.
func DecodePassword(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, encodedPrefix)
	if !ok {
		return stored, nil
	}
	plain, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid encoded password: %w", err)
	}
	return string(plain), nil
}

// MasterPassword reads and decodes the encryption master password. found is
// false when no password has been set; the node is only read when it exists.
func MasterPassword(ctx context.Context, store ports.CoordinationStore) (password string, found bool, err error) {
	exists, err := store.Exists(ctx, MasterPasswordPath)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return "", false, nil
	}

	data, err := store.Get(ctx, MasterPasswordPath)
	if errors.Is(err, apperrors.ErrNodeNotFound) {
		// Removed between the two calls.
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	password, err = DecodePassword(strings.TrimSpace(string(data)))
	if err != nil {
		return "", false, err
	}
	return password, true, nil
}
