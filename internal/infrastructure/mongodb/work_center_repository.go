package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/DFCPagro/DFCP-sub001/internal/domain"
)

// WorkCenterRepository resolves a work center's currently active shift
type WorkCenterRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewWorkCenterRepository creates a shift resolver backed by the
// work_centers collection
func NewWorkCenterRepository(db *mongo.Database) *WorkCenterRepository {
	return &WorkCenterRepository{
		collection: db.Collection("work_centers"),
		now:        time.Now,
	}
}

type shiftWindow struct {
	Name      string `bson:"name"`
	StartHour int    `bson:"startHour"`
	EndHour   int    `bson:"endHour"`
}

type workCenterDoc struct {
	ID       string        `bson:"_id"`
	Timezone string        `bson:"timezone"`
	Shifts   []shiftWindow `bson:"shifts"`
}

// CurrentShift resolves the shift scope active right now in the work
// center's local time. Windows that wrap midnight (e.g. a 22-06 night
// shift) resolve to the date the shift started on.
func (r *WorkCenterRepository) CurrentShift(ctx context.Context, workCenter string) (domain.Scope, error) {
	var doc workCenterDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": workCenter}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.Scope{}, fmt.Errorf("work center %s not found", workCenter)
	}
	if err != nil {
		return domain.Scope{}, fmt.Errorf("failed to load work center: %w", err)
	}

	loc, err := time.LoadLocation(doc.Timezone)
	if err != nil {
		loc = time.UTC
	}
	localNow := r.now().In(loc)
	hour := localNow.Hour()

	for _, shift := range doc.Shifts {
		if shift.StartHour <= shift.EndHour {
			if hour >= shift.StartHour && hour < shift.EndHour {
				return domain.Scope{
					WorkCenter: workCenter,
					Shift:      shift.Name,
					ShiftDate:  localNow.Format("2006-01-02"),
				}, nil
			}
			continue
		}

		// Window wraps midnight
		if hour >= shift.StartHour {
			return domain.Scope{
				WorkCenter: workCenter,
				Shift:      shift.Name,
				ShiftDate:  localNow.Format("2006-01-02"),
			}, nil
		}
		if hour < shift.EndHour {
			return domain.Scope{
				WorkCenter: workCenter,
				Shift:      shift.Name,
				ShiftDate:  localNow.AddDate(0, 0, -1).Format("2006-01-02"),
			}, nil
		}
	}

	return domain.Scope{}, fmt.Errorf("no active shift for work center %s at %02d:00", workCenter, hour)
}
