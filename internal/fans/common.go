package fans

import (
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/exp/slices"
)

const (
	MinSpeed = 0
	MaxSpeed = 100
)

var (
	// FanMap holds all fans managed by the daemon, by id
	FanMap = cmap.New[*Fan]()
)

// SortedFans returns all fans of FanMap ordered by id
func SortedFans() []*Fan {
	result := make([]*Fan, 0, FanMap.Count())
	for _, fan := range FanMap.Items() {
		result = append(result, fan)
	}
	slices.SortFunc(result, func(a, b *Fan) int {
		return strings.Compare(a.GetId(), b.GetId())
	})
	return result
}
