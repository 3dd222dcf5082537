// Package component defines the lifecycle interface shared by the test
// database and the test application environment.
package component
