package player

import (
	"log"

	"github.com/AaronLay10/AdventureEngine/internal/walkthrough"
)

// LoopController runs every click on the walkthrough loop.
type LoopController struct {
	W *walkthrough.Walkthrough
}

func (c LoopController) ClickNext() {
	c.W.Do(func() { c.W.Chrome.ClickNext() })
}

func (c LoopController) ClickBack() {
	c.W.Do(func() { c.W.Chrome.ClickBack() })
}

func (c LoopController) ClickStartOver() {
	c.W.Do(func() { c.W.Chrome.ClickStartOver() })
}

func (c LoopController) Select(value string) {
	c.W.Do(func() {
		if err := c.W.Presenter.Select(value); err != nil {
			log.Printf("player: %v", err)
		}
	})
}
