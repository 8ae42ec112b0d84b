// Package domain contains the values exchanged between the probe engine and
// its consumers. They carry no infrastructure concerns so the HTTP layer, the
// CLI and the engine can share them freely.
package domain
