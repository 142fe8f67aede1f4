// Package hubterm provides an embeddable terminal bridge for hubs that
// expose a UART over Bluetooth Low Energy or a serial line.
//
// A [Bridge] batches user input into small chunks, writes them one at a time
// with acknowledgment and echo pacing, and turns everything the hub sends
// back into terminal output and runtime status updates.
//
// # Basic Usage
//
//	// transport implements hubterm.Transport over an open connection.
//	bridge, err := hubterm.New(hubterm.DefaultConfig(), transport,
//	    hubterm.WithPresentation(myView),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := bridge.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.Stop()
//
//	bridge.Send(ctx, "print('hello')\r\n")
//
// # Output
//
// Presentations passed with [WithPresentation] receive the output stream once
// the bridge starts. [Bridge.Subscribe] attaches further consumers at any time.
// Late subscribers see only output published after they attached.
//
// # Runtime Status
//
// The hub announces program state changes in-band. The bridge tracks them in
// a runtime monitor; see [Bridge.RuntimeStatus], [WithStatusRecorder] and
// [EventHandler].
//
// # Lifecycle States
//
// A Bridge is in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping] or [StateCrashed]. A bridge crashes when its
// transport stops delivering notifications.
package hubterm
