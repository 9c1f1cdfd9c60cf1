// Command featurefleet keeps a container's installed features in line with
// its profile.
package main

func main() {
	Execute()
}
