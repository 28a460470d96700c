// Package identity implements the self-identity source of spec.md §6:
// read_self_id() -> u8, "the low 8 bits of the node's persisted radio
// address". On Linux hardware with an attached USB radio dongle, that
// persisted address is read from udev device attributes (go-udev); hosts
// without such a device (the netradio backend, tests) fall back to a
// small persisted file.
package identity

import "fmt"

// Source is the self-identity collaborator.
type Source interface {
	ReadSelfID() (byte, error)
}

// Static is a Source that always returns a fixed ID, used directly by tests
// and by any deployment where the ID is simply known in advance.
type Static byte

func (s Static) ReadSelfID() (byte, error) {
	return byte(s), nil
}

// FromFile reads a single persisted byte from path, writing defaultID if
// the file does not yet exist. It is the portable fallback identity source
// described in SPEC_FULL.md §6 for hosts without a udev-visible radio
// device.
type FromFile struct {
	Path      string
	DefaultID byte
}

func (f FromFile) ReadSelfID() (byte, error) {
	id, err := readByteFile(f.Path)
	if err == nil {
		return id, nil
	}

	if err := writeByteFile(f.Path, f.DefaultID); err != nil {
		return 0, fmt.Errorf("identity: persisting default id to %s: %w", f.Path, err)
	}

	return f.DefaultID, nil
}
