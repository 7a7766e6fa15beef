// Command sinema runs a demo actor driven by a periodic timer and exposes
// its metrics over HTTP.
package main

func main() {
	Execute()
}
