/*
Package ws is the viewer side of the gateway.

Each connection on /ws becomes a Client registered with the viewer registry.
The server only ever sends binary messages, each one a complete JPEG frame,
with no framing metadata. Anything a viewer sends is handled by the
InputPolicy and never reaches the page.

Per connection there is one reader goroutine (the handler itself) and one
writer goroutine. The broadcast loop only touches a single-slot mailbox, so a
stalled socket never slows other viewers down.

	handler := ws.NewHandler(registry, loop, ws.DefaultOptions(), logger, metrics)
	router.GET("/ws", handler.HandleConnection)
*/
package ws
