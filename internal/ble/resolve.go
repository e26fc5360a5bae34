package ble

import (
	"errors"
	"slices"
	"strings"
)

// Short identifiers of the write characteristic and LED service across the
// two vendor profiles (ffd0/ffd4 and fff0/fff3). Full 128-bit forms use the
// Bluetooth base UUID 0000xxxx-0000-1000-8000-00805f9b34fb.
var (
	writeCharacteristicIDs = [...]string{"ffd4", "fff3"}
	serviceIDs             = [...]string{"ffd0", "fff0"}
)

// ErrNoWriteCharacteristic is returned by Resolve when no known write
// characteristic is present.
var ErrNoWriteCharacteristic = errors.New("ble: no write characteristic found")

// NormalizeUUID reduces a 16-bit, 32-bit or 128-bit UUID string to its
// 4-hex-digit short form: "0000FFD4-0000-1000-8000-00805F9B34FB" and "ffd4"
// both become "ffd4".
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(uuid), "-", ""))
	if len(s) <= 4 {
		return s
	}
	return s[4:min(8, len(s))]
}

// IsWriteCharacteristic reports whether uuid is a known write characteristic.
func IsWriteCharacteristic(uuid string) bool {
	return slices.Contains(writeCharacteristicIDs[:], NormalizeUUID(uuid))
}

// IsLEDService reports whether uuid is a known LED controller service.
func IsLEDService(uuid string) bool {
	return slices.Contains(serviceIDs[:], NormalizeUUID(uuid))
}

// ServiceIDs returns the short ids of the known LED services.
func ServiceIDs() []string {
	return slices.Clone(serviceIDs[:])
}

// Resolve walks services and their characteristics in discovery order and
// returns the first known write characteristic.
func Resolve(services []Service) (Characteristic, error) {
	for _, svc := range services {
		for _, char := range svc.Characteristics {
			if IsWriteCharacteristic(char.UUID()) {
				return char, nil
			}
		}
	}
	return nil, ErrNoWriteCharacteristic
}
