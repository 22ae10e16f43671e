// file: internal/config/secrets.go
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
)

// KeyringPrefix marks an environment value that must be read from the OS keyring.
// The remainder has the form service/user.
const KeyringPrefix = "keyring:"

// ResolveEnv returns env with every keyring reference replaced by the stored secret.
// Other values are returned unchanged.
func ResolveEnv(env map[string]string) (map[string]string, error) {
	if len(env) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		if !strings.HasPrefix(v, KeyringPrefix) {
			out[k] = v
			continue
		}
		secret, err := lookupSecret(strings.TrimPrefix(v, KeyringPrefix))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve env %s", k)
		}
		out[k] = secret
	}
	return out, nil
}

// ResolveHeaders applies the same keyring resolution to HTTP headers.
func ResolveHeaders(headers map[string]string) (map[string]string, error) {
	return ResolveEnv(headers)
}

// SplitSecretRef splits a service/user keyring reference.
func SplitSecretRef(ref string) (service, user string, err error) {
	service, user, ok := strings.Cut(strings.TrimPrefix(ref, KeyringPrefix), "/")
	if !ok || service == "" || user == "" {
		return "", "", errors.Newf("keyring reference %q must have the form service/user", ref)
	}
	return service, user, nil
}

// StoreSecret saves secret under a service/user reference so env and header values can
// refer to it as keyring:service/user.
func StoreSecret(ref, secret string) error {
	service, user, err := SplitSecretRef(ref)
	if err != nil {
		return err
	}
	if secret == "" {
		return errors.New("refusing to store an empty secret")
	}
	return errors.Wrapf(keyring.Set(service, user, secret), "failed to store secret for %s/%s", service, user)
}

// KeyringCheckService is the keyring service used by CheckKeyring's probe entry.
const KeyringCheckService = "toolwire-keyring-check"

// KeyringCheck is the outcome of one set/get/delete probe of the OS keyring.
type KeyringCheck struct {
	SetErr    error
	GetErr    error
	Match     bool
	DeleteErr error
}

// Err returns the first failed step, or nil when the keyring round trip worked.
func (k KeyringCheck) Err() error {
	switch {
	case k.SetErr != nil:
		return errors.Wrap(k.SetErr, "keyring set failed")
	case k.GetErr != nil:
		return errors.Wrap(k.GetErr, "keyring get failed")
	case !k.Match:
		return errors.New("keyring returned a different value than was stored")
	case k.DeleteErr != nil:
		return errors.Wrap(k.DeleteErr, "keyring delete failed")
	}
	return nil
}

// CheckKeyring stores, reads back and deletes a throwaway secret under user.
func CheckKeyring(user string) KeyringCheck {
	const probe = "toolwire-probe-value"
	var res KeyringCheck
	if res.SetErr = keyring.Set(KeyringCheckService, user, probe); res.SetErr != nil {
		return res
	}
	var got string
	got, res.GetErr = keyring.Get(KeyringCheckService, user)
	res.Match = res.GetErr == nil && got == probe
	res.DeleteErr = keyring.Delete(KeyringCheckService, user)
	return res
}

func lookupSecret(ref string) (string, error) {
	service, user, err := SplitSecretRef(ref)
	if err != nil {
		return "", err
	}
	secret, err := keyring.Get(service, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", errors.Newf("no keyring secret for service %q user %q", service, user)
		}
		return "", errors.Wrap(err, "keyring lookup failed")
	}
	return secret, nil
}
