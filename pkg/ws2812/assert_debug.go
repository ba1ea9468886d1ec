//go:build ws2812debug

package ws2812

const debugAssertions = true
