// Package editor hosts an embedded code editor widget.
//
// The widget itself is opaque: Host only drives its initialization
// contract (pre-mount language service configuration, mount, focus) and
// reads back the document text and display mode. Buffer is an in-memory
// widget used by the terminal front end.
package editor
