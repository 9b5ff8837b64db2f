// Command promptreel submits text-to-video generations through promptreeld,
// shows simulated progress while they render, and manages the local
// generation history.
package main
