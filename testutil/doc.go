// Package testutil provides test doubles shared across package tests: a
// scriptable terminal bridge and a notification collector.
package testutil
