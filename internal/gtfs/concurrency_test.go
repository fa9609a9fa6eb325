package gtfs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcurrentPredictionsAndUpdates(t *testing.T) {
	manager := loadedManager(t)
	trips, vehicles := manager.GetRealTimeTrips(), manager.GetRealTimeVehicles()
	static := manager.GetStaticData()

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := manager.Predictions(context.Background(), rider); err != nil {
					errs <- err
				}
				_ = manager.Stats()
			}
		}()
	}

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if (index+j)%2 == 0 {
					manager.MockSetRealtime(nil, nil)
				} else {
					manager.MockSetRealtime(trips, vehicles)
				}
				manager.setStaticGTFS(context.Background(), static)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
