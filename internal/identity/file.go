package identity

import (
	"fmt"
	"os"
)

func readByteFile(path string) (byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("identity: %s is empty", path)
	}

	return raw[0], nil
}

func writeByteFile(path string, id byte) error {
	return os.WriteFile(path, []byte{id}, 0o644)
}
