// Package keyring stores the inference API credential in the OS keychain,
// with an environment-variable escape hatch for headless machines.
package keyring

import (
	"fmt"
	"os"

	zkr "github.com/zalando/go-keyring"
)

const serviceName = "fieldsense"

// envKey overrides the keychain when set. Also the only source when the
// keychain is disabled.
const envKey = "FIELDSENSE_API_KEY"

// Resolve returns the credential for providerID: the environment variable
// wins, then the OS keychain. An empty string means unconfigured.
func Resolve(providerID string) string {
	if key := os.Getenv(envKey); key != "" {
		return key
	}
	if !Available() {
		return ""
	}
	key, err := zkr.Get(serviceName, providerID)
	if err != nil {
		return ""
	}
	return key
}

// Set stores the credential for providerID in the OS keychain.
func Set(providerID, key string) error {
	if err := zkr.Set(serviceName, providerID, key); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// Delete removes the credential for providerID.
func Delete(providerID string) error {
	if err := zkr.Delete(serviceName, providerID); err != nil {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// Available returns true if the OS keychain is functional. Returns false if
// FIELDSENSE_KEYRING_DISABLED=1 is set (for headless/CI/Docker); otherwise
// probes with a test write/read/delete cycle.
func Available() bool {
	if os.Getenv("FIELDSENSE_KEYRING_DISABLED") == "1" {
		return false
	}
	testService := "fieldsense-keyring-probe"
	if err := zkr.Set(testService, "probe", "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, "probe")
	return true
}
