package main

import "contribution-metrics/cmd/metricsctl/cmd"

func main() {
	cmd.Execute()
}
