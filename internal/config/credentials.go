package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

const (
	credentialsSection = "AWS"
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
)

// ErrNoCredentialsFile is returned when the credentials file does not exist.
var ErrNoCredentialsFile = errors.New("credentials file not found")

// ExportCredentials reads the [AWS] section of an INI file and exports its
// keys as environment variables for the AWS SDK.
func ExportCredentials(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoCredentialsFile, path)
	}

	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to parse credentials file '%s': %w", path, err)
	}

	section, err := file.GetSection(credentialsSection)
	if err != nil {
		return fmt.Errorf("%w: section [%s] in %s", ErrMissingCredential, credentialsSection, path)
	}

	for _, key := range []string{EnvAccessKeyID, EnvSecretAccessKey} {
		if !section.HasKey(key) || section.Key(key).String() == "" {
			return fmt.Errorf("%w: %s in %s", ErrMissingCredential, key, path)
		}
		if err := os.Setenv(key, section.Key(key).String()); err != nil {
			return err
		}
	}
	return nil
}
