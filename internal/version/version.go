// Package version provides build and version information for the adventure
// server and player.
package version

// Version is the current release version.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/AdventureEngine/internal/version.Version=x.y.z"
var Version = "0.1.0"
