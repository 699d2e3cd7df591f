//go:build linux && !baremetal

package app

import "tinygo.org/x/bluetooth"

func bleAdapter(id string) *bluetooth.Adapter {
	if id == "" {
		return bluetooth.DefaultAdapter
	}
	return bluetooth.NewAdapter(id)
}
