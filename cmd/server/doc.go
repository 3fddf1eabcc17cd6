// Command pagecast streams a live view of a web page to WebSocket viewers.
//
// Configuration comes from environment variables (see the config package);
// command line flags override them:
//
//	pagecast --port 3000 --target https://whitebit.com/trade/XTZ-USDT --fps 10 --quality 60
//
//	# Development mode (colored logs, debug level)
//	pagecast --dev
//
// Signals:
//   - SIGINT, SIGTERM: stop the loop, close the browser, exit 0
package main
