// Command tripchat is a terminal client for the trip assistant.
package main

func main() {
	Execute()
}
