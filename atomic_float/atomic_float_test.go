package atomic_float

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicAdd(t *testing.T) {
	Convey("When AtomicAdd is called", t, func() {
		Convey("When multiple writers add to the float value concurrently", func() {
			af := NewAtomicFloat64(0.0)
			numOps := 3000
			numWriters := 200

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters)
			adder := func() {
				<-start
				for i := 0; i < numOps; i++ {
					for succeeded := false; !succeeded; _, succeeded = af.AtomicAdd(1.0) {
					}
				}
				wg.Done()
			}

			for i := 0; i < numWriters; i++ {
				go adder()
			}

			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, float64(numOps*numWriters))
		})

		Convey("When multiple writers increment and decrement the float value concurrently", func() {
			af := NewAtomicFloat64(0.0)
			numOps := 3000
			numWriters := 200

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters * 2)
			incrementer := func() {
				<-start
				for i := 0; i < numOps; i++ {
					for succeeded := false; !succeeded; _, succeeded = af.AtomicAdd(1.0) {
					}
				}
				wg.Done()
			}

			decrementer := func() {
				<-start
				for i := 0; i < numOps; i++ {
					for succeeded := false; !succeeded; _, succeeded = af.AtomicAdd(-1.0) {
					}
				}
				wg.Done()
			}

			for i := 0; i < numWriters; i++ {
				go incrementer()
				go decrementer()
			}

			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, float64(0.0))
		})
	})
}

func TestAtomicSetKeepsHighestScore(t *testing.T) {
	Convey("When several trial goroutines race to record the best validation win rate", t, func() {
		best := NewAtomicFloat64(-1.0)
		scores := []float64{0.42, 0.91, 0.67, 0.88, 0.91}

		wg := sync.WaitGroup{}
		wg.Add(len(scores))
		for _, s := range scores {
			s := s
			go func() {
				defer wg.Done()
				for {
					cur := best.AtomicRead()
					if s <= cur {
						return
					}
					if ok := best.AtomicSet(s); ok {
						return
					}
				}
			}()
		}
		wg.Wait()

		So(best.AtomicRead(), ShouldEqual, 0.91)
	})
}
