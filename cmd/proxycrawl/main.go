// Package main provides the proxycrawl CLI.
//
// Usage:
//
//	proxycrawl harvest            scrape, validate and persist free proxies
//	proxycrawl crawl              download country datasets through the proxies
//	proxycrawl run                harvest, then crawl
//
// See --help for all available options.
package main

func main() {
	Execute()
}
