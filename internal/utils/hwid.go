package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID is an app specific hash of the machine id, empty when unavailable.
var HWID = hardwareID()

func hardwareID() string {
	id, err := machineid.ProtectedID("Minecraft_updater")
	if err != nil {
		return ""
	}
	return id
}
