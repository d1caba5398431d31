// Package animator moves robots along their queued paths.
//
// Each moving robot gets its own delay chain: a goroutine that waits one step
// delay, advances the robot through the game service and repeats until the
// path is walked. While it waits, the chain emits tweened frames so views can
// slide the robot between cells instead of jumping.
package animator
