//go:build !linux || baremetal

package app

import "tinygo.org/x/bluetooth"

// Only BlueZ addresses adapters by name.
func bleAdapter(string) *bluetooth.Adapter {
	return bluetooth.DefaultAdapter
}
