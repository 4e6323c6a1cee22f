package client

import (
	"github.com/flier268/Minecraft-updater/internal/client/sync"
)

func observerFunc(fn func(msg string)) sync.Observer {
	return sync.Observer{
		OnLog: func(message string, _ sync.Color) {
			fn(message)
		},
	}
}
