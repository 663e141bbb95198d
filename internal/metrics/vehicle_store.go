package metrics

import (
	"context"
	"sync"
	"time"
)

// LastSeen stores timestamp & coordinates for speed computation
type LastSeen struct {
	Time time.Time
	Lat  float64
	Lon  float64
}

// VehicleLastSeen stores the most recent known position and time of each vehicle,
// keyed by route id and then vehicle id.
//
// Successive snapshots are compared against it to compute vehicle speed and spot
// positions that jump further than a train can travel.
type VehicleLastSeen struct {
	Mu    sync.RWMutex
	Store map[string]map[string]LastSeen
}

// NewVehicleLastSeen creates and returns a new VehicleLastSeen instance
// with an initialized storage map.
func NewVehicleLastSeen() *VehicleLastSeen {
	return &VehicleLastSeen{
		Store: make(map[string]map[string]LastSeen),
	}
}

// Get retrieves the LastSeen data for a vehicle on a route.
func (v *VehicleLastSeen) Get(routeID, vehicleID string) (LastSeen, bool) {
	v.Mu.RLock()
	defer v.Mu.RUnlock()

	if vehicles, ok := v.Store[routeID]; ok {
		lastSeen, ok := vehicles[vehicleID]
		return lastSeen, ok
	}
	return LastSeen{}, false
}

// Set stores or updates the LastSeen data for a vehicle on a route.
func (v *VehicleLastSeen) Set(routeID, vehicleID string, lastSeen LastSeen) {
	v.Mu.Lock()
	defer v.Mu.Unlock()

	if _, ok := v.Store[routeID]; !ok {
		v.Store[routeID] = make(map[string]LastSeen)
	}
	v.Store[routeID][vehicleID] = lastSeen
}

// Count returns the number of vehicles seen on a route.
func (v *VehicleLastSeen) Count(routeID string) int {
	v.Mu.RLock()
	defer v.Mu.RUnlock()

	return len(v.Store[routeID])
}

// ClearRoutine periodically removes vehicles not seen for longer than threshold,
// until ctx is canceled.
func (v *VehicleLastSeen) ClearRoutine(ctx context.Context, timeInterval, threshold time.Duration) {
	ticker := time.NewTicker(timeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			v.clear(time.Now().UTC(), threshold)
		case <-ctx.Done():
			return
		}
	}
}

func (v *VehicleLastSeen) clear(now time.Time, threshold time.Duration) {
	v.Mu.Lock()
	defer v.Mu.Unlock()

	for routeID, vehicles := range v.Store {
		for vehicleID, lastSeen := range vehicles {
			if now.Sub(lastSeen.Time) > threshold {
				delete(vehicles, vehicleID)
			}
		}
		if len(vehicles) == 0 {
			delete(v.Store, routeID)
		}
	}
}
