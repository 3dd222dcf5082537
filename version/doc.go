// Package version reports the fixturekit build printed by
// `fixturekit show-version`.
//
//	go build -ldflags "-X github.com/kbukum/fixturekit/version.Version=1.0.0" ./cmd/fixturekit
package version
