// Package config loads the YAML configuration of the adapter daemon.
//
// A document has four sections:
//
//	adapter:
//	  buffer_words: 32
//	  max_packet_words: 32
//	  mode: classified
//	  max_passes: 1024
//	  poll_interval: 1ms
//	window:
//	  path: /dev/uio0
//	  uio: /dev/uio0
//	metrics:
//	  listen: ":9120"
//	log:
//	  level: debug
//	  format: json
//
// Missing keys keep their defaults ([Default]). An empty window path selects
// the in-memory simulated adapter.
package config
