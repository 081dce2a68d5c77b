package memory

import (
	"context"
	"sort"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// RobotRepository implements domain.RobotRepository
type RobotRepository struct {
	s *Store
}

func (r *RobotRepository) Create(ctx context.Context, robot *domain.Robot) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.st.robots[robot.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.s.st.robots[robot.ID] = copyRobot(robot)
	return nil
}

func (r *RobotRepository) FindByID(ctx context.Context, robotID string) (*domain.Robot, error) {
	defer r.s.lock(ctx)()
	robot, ok := r.s.st.robots[robotID]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "robot", ID: robotID}
	}
	return copyRobot(robot), nil
}

func (r *RobotRepository) Find(ctx context.Context, filter domain.RobotFilter) ([]*domain.Robot, int64, error) {
	defer r.s.lock(ctx)()
	matched := make([]*domain.Robot, 0)
	for _, robot := range r.s.st.robots {
		if filter.Status != "" && robot.Status != filter.Status {
			continue
		}
		if filter.Zone != "" && robot.AssignedZone != filter.Zone {
			continue
		}
		matched = append(matched, copyRobot(robot))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, filter.Pagination), int64(len(matched)), nil
}

func (r *RobotRepository) CompareAndSwapStatus(ctx context.Context, robotID string, expected, next domain.RobotStatus, commandID string) (bool, error) {
	defer r.s.lock(ctx)()
	robot, ok := r.s.st.robots[robotID]
	if !ok {
		return false, &domain.NotFoundError{Resource: "robot", ID: robotID}
	}
	if robot.Status != expected {
		return false, nil
	}
	robot.Status = next
	robot.CurrentCommandID = commandID
	robot.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *RobotRepository) ReleaseCommand(ctx context.Context, robotID, commandID string, next domain.RobotStatus) (bool, error) {
	defer r.s.lock(ctx)()
	robot, ok := r.s.st.robots[robotID]
	if !ok {
		return false, &domain.NotFoundError{Resource: "robot", ID: robotID}
	}
	if robot.Status != domain.RobotStatusWorking || robot.CurrentCommandID != commandID {
		return false, nil
	}
	robot.Status = next
	robot.CurrentCommandID = ""
	robot.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *RobotRepository) UpdateLocation(ctx context.Context, robotID string, location domain.Coordinate, binID string) error {
	defer r.s.lock(ctx)()
	robot, ok := r.s.st.robots[robotID]
	if !ok {
		return &domain.NotFoundError{Resource: "robot", ID: robotID}
	}
	robot.MoveTo(location, binID)
	return nil
}

// CommandRepository implements domain.CommandRepository
type CommandRepository struct {
	s *Store
}

func (r *CommandRepository) Create(ctx context.Context, cmd *domain.Command) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.st.commands[cmd.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.s.st.commands[cmd.ID] = copyCommand(cmd)
	return nil
}

func (r *CommandRepository) FindByID(ctx context.Context, commandID string) (*domain.Command, error) {
	defer r.s.lock(ctx)()
	cmd, ok := r.s.st.commands[commandID]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "command", ID: commandID}
	}
	return copyCommand(cmd), nil
}

func (r *CommandRepository) Find(ctx context.Context, filter domain.CommandFilter) ([]*domain.Command, int64, error) {
	defer r.s.lock(ctx)()
	matched := make([]*domain.Command, 0)
	for _, cmd := range r.s.st.commands {
		if filter.RobotID != "" && cmd.RobotID != filter.RobotID {
			continue
		}
		if filter.Status != "" && cmd.Status != filter.Status {
			continue
		}
		if filter.Type != "" && cmd.Type != filter.Type {
			continue
		}
		matched = append(matched, copyCommand(cmd))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Pagination), int64(len(matched)), nil
}

func (r *CommandRepository) Update(ctx context.Context, cmd *domain.Command, expected domain.CommandStatus) (bool, error) {
	defer r.s.lock(ctx)()
	stored, ok := r.s.st.commands[cmd.ID]
	if !ok {
		return false, &domain.NotFoundError{Resource: "command", ID: cmd.ID}
	}
	if stored.Status != expected {
		return false, nil
	}
	r.s.st.commands[cmd.ID] = copyCommand(cmd)
	return true, nil
}

func (r *CommandRepository) Delete(ctx context.Context, commandID string) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.commands[commandID]; !ok {
		return &domain.NotFoundError{Resource: "command", ID: commandID}
	}
	delete(r.s.st.commands, commandID)
	return nil
}

func (r *CommandRepository) FindExecutingSince(ctx context.Context, cutoff time.Time) ([]*domain.Command, error) {
	defer r.s.lock(ctx)()
	stalled := make([]*domain.Command, 0)
	for _, cmd := range r.s.st.commands {
		if cmd.Status == domain.CommandStatusExecuting && cmd.StartedAt != nil && cmd.StartedAt.Before(cutoff) {
			stalled = append(stalled, copyCommand(cmd))
		}
	}
	sort.Slice(stalled, func(i, j int) bool { return stalled[i].StartedAt.Before(*stalled[j].StartedAt) })
	return stalled, nil
}
