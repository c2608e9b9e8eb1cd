// Package io connects the emulated serial port to the host: a raw mode
// terminal for the console, and an XMODEM sender for pushing files to a
// guest bootloader.
package io
