package noc_test

import (
	"context"
	"fmt"

	"github.com/ardnew/softnoc/hal/fifo"
	"github.com/ardnew/softnoc/noc"
)

func Example() {
	hw := fifo.New(2)
	hw.Route(0, 1) // packets sent on endpoint 0 arrive on endpoint 1

	adapter, err := noc.New(hw, noc.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		return
	}
	defer adapter.Shutdown()

	if err := adapter.Open(1); err != nil {
		fmt.Println(err)
		return
	}

	if _, err := adapter.Write(0, []byte("tile0->1")); err != nil {
		fmt.Println(err)
		return
	}
	adapter.Poll()

	buf := make([]byte, 8)
	n, err := adapter.ReadFull(context.Background(), 1, buf)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%s\n", buf[:n])
	// Output: tile0->1
}

func ExampleAdapter_Register() {
	hw := fifo.New(1)

	cfg := noc.DefaultConfig()
	cfg.Mode = noc.ModeClassified

	adapter, err := noc.New(hw, cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	_ = adapter.Register(2, noc.HandlerFunc(func(ep int, words []uint32) {
		h := noc.ParseHeader(words[0])
		fmt.Printf("endpoint %d: class %d from tile %d, %d words\n", ep, h.Class, h.Src, len(words))
	}))

	hw.Inject(0, noc.Header{Dest: 0, Class: 2, Src: 9}.Word(), 0x1234)
	hw.Inject(0, noc.ControlHeader(0, 4, 12, true).Word())
	adapter.Poll()

	fmt.Println("tile 4 endpoint 12 ready:", adapter.Readiness().IsReady(4, 12))
	// Output:
	// endpoint 0: class 2 from tile 9, 2 words
	// tile 4 endpoint 12 ready: true
}
