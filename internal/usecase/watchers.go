package usecase

import (
	"sync"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/entity"
)

type watchers struct {
	mu   sync.Mutex
	subs map[string]map[chan *entity.GameState]struct{}
}

func newWatchers() *watchers {
	return &watchers{
		subs: make(map[string]map[chan *entity.GameState]struct{}),
	}
}

func (that *watchers) add(code string) chan *entity.GameState {
	updates := make(chan *entity.GameState, 1)

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.subs[code] == nil {
		that.subs[code] = make(map[chan *entity.GameState]struct{})
	}
	that.subs[code][updates] = struct{}{}

	return updates
}

func (that *watchers) remove(code string, updates chan *entity.GameState) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subs, ok := that.subs[code]
	if !ok {
		return
	}

	if _, ok = subs[updates]; !ok {
		return
	}

	delete(subs, updates)
	close(updates)

	if len(subs) == 0 {
		delete(that.subs, code)
	}
}

// broadcast never blocks: a pending state nobody has read yet is replaced by game.
func (that *watchers) broadcast(code string, game *entity.GameState) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for updates := range that.subs[code] {
		select {
		case <-updates:
		default:
		}

		updates <- game
	}
}

func (that *watchers) count(code string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.subs[code])
}
