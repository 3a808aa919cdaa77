// Sweeper - cloud resource janitor.
// Mark. Notify. Delete.
package main

func main() {
	Execute()
}
