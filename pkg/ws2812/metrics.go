package ws2812

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// framesCounter counts frames whose transmission was started
	framesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ws281x",
		Name:      "frames_count",
		Help:      "Frames handed to the DMA channel",
	}, []string{"strategy"})

	// interruptCounter counts DMA interrupts handled by the engines
	interruptCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ws281x",
		Name:      "interrupts_count",
		Help:      "DMA interrupts handled by the transmission engine",
	}, []string{"strategy"})

	// deadlineMissCounter counts halves the DMA channel entered before they were refilled
	deadlineMissCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ws281x",
		Name:      "deadline_misses_count",
		Help:      "Streaming refills that completed after the hardware needed them",
	})

	// overrunCounter counts rejected refills while both halves were queued
	overrunCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ws281x",
		Name:      "overruns_count",
		Help:      "Streaming refills rejected because both halves were already queued",
	})

	// misuseCounter counts operations invoked in a state that does not allow them
	misuseCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ws281x",
		Name:      "misuse_count",
		Help:      "Operations ignored because the engine was in the wrong state",
	}, []string{"op"})
)
