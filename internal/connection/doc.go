// Package connection maintains the live trade feed.
//
// A Stream holds one multiplexed WebSocket connection to the exchange's
// combined stream endpoint (<base>/stream?streams=btcusdt@trade/ethusdt@trade)
// and:
//   - Reconnects forever with exponential backoff (1s doubling to 30s, reset on success)
//   - Pings every 20s and treats a missing pong as a connection error
//   - Hands every frame to a MessageHandler, recovering handler panics
//
// Missed ticks are not replayed after a reconnect.
package connection
