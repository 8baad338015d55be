// Command compositor drives the reference Scene host: it opens a demo window
// or benchmarks dispatch over a generated node tree.
package main

func main() {
	Execute()
}
