// Package exchange talks to the Binance spot REST API.
//
// It is used once at startup to confirm that every configured symbol exists
// and is currently trading, so a typo fails fast instead of producing a
// silent, empty stream.
package exchange
