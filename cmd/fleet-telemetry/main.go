package main

import "github.com/monx-observability/fleet-telemetry/cmd/fleet-telemetry/cmd"

func main() {
	cmd.Execute()
}
