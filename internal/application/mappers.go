package application

import "github.com/wms-platform/asrs-service/internal/domain"

// ToCoordinateDTO converts a domain Coordinate to CoordinateDTO
func ToCoordinateDTO(c domain.Coordinate) CoordinateDTO {
	return CoordinateDTO{X: c.X, Y: c.Y, Z: c.Z}
}

// ToFulfillmentPlanDTO converts a domain FulfillmentPlan to FulfillmentPlanDTO
func ToFulfillmentPlanDTO(plan *domain.FulfillmentPlan) *FulfillmentPlanDTO {
	if plan == nil {
		return nil
	}

	steps := make([]PickStepDTO, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		steps = append(steps, PickStepDTO{
			Sequence:     s.Sequence,
			ItemID:       s.ItemID,
			BinID:        s.BinID,
			LocationCode: s.LocationCode,
			Zone:         s.Zone,
			Quantity:     s.Quantity,
			Distance:     s.Distance,
			Time:         s.Time,
		})
	}

	return &FulfillmentPlanDTO{
		PlanID:          plan.PlanID,
		RequestID:       plan.RequestID,
		Steps:           steps,
		TotalDistance:   plan.TotalDistance,
		TotalTime:       plan.TotalTime,
		EfficiencyScore: plan.EfficiencyScore,
		CreatedAt:       plan.CreatedAt,
	}
}

// ToMovementRecordDTOs converts movement records
func ToMovementRecordDTOs(records []*domain.MovementRecord) []MovementRecordDTO {
	dtos := make([]MovementRecordDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, MovementRecordDTO{
			ID:          r.ID,
			Type:        string(r.Type),
			PlanID:      r.PlanID,
			Sequence:    r.Sequence,
			ItemID:      r.ItemID,
			SourceBinID: r.SourceBinID,
			Quantity:    r.Quantity,
			Status:      string(r.Status),
			PerformedBy: r.PerformedBy,
			Timestamp:   r.Timestamp,
		})
	}
	return dtos
}

// ToRobotDTO converts a domain Robot to RobotDTO
func ToRobotDTO(robot *domain.Robot) *RobotDTO {
	if robot == nil {
		return nil
	}
	return &RobotDTO{
		ID:                   robot.ID,
		Name:                 robot.Name,
		Status:               string(robot.Status),
		Location:             ToCoordinateDTO(robot.Location),
		LocationBinID:        robot.LocationBinID,
		AssignedZone:         robot.AssignedZone,
		SpeedMetersPerSecond: robot.SpeedMetersPerSecond,
		CurrentCommandID:     robot.CurrentCommandID,
		CreatedAt:            robot.CreatedAt,
		UpdatedAt:            robot.UpdatedAt,
	}
}

// ToCommandParameters converts wire parameters to the domain form
func ToCommandParameters(p CommandParametersDTO) domain.CommandParameters {
	return domain.CommandParameters{
		DestinationBinID: p.DestinationBinID,
		Waypoints:        p.Waypoints,
		BinID:            p.BinID,
		ItemID:           p.ItemID,
		Quantity:         p.Quantity,
		ExpiryDate:       p.ExpiryDate,
		BatchID:          p.BatchID,
		Barcode:          p.Barcode,
	}
}

// ToCommandDTO converts a domain Command to CommandDTO
func ToCommandDTO(cmd *domain.Command) *CommandDTO {
	if cmd == nil {
		return nil
	}

	dto := &CommandDTO{
		ID:      cmd.ID,
		RobotID: cmd.RobotID,
		Type:    string(cmd.Type),
		Parameters: CommandParametersDTO{
			DestinationBinID: cmd.Parameters.DestinationBinID,
			Waypoints:        cmd.Parameters.Waypoints,
			BinID:            cmd.Parameters.BinID,
			ItemID:           cmd.Parameters.ItemID,
			Quantity:         cmd.Parameters.Quantity,
			ExpiryDate:       cmd.Parameters.ExpiryDate,
			BatchID:          cmd.Parameters.BatchID,
			Barcode:          cmd.Parameters.Barcode,
		},
		Status:       string(cmd.Status),
		RequestedBy:  cmd.RequestedBy,
		PlanID:       cmd.PlanID,
		CreatedAt:    cmd.CreatedAt,
		UpdatedAt:    cmd.UpdatedAt,
		StartedAt:    cmd.StartedAt,
		CompletedAt:  cmd.CompletedAt,
		ErrorMessage: cmd.ErrorMessage,
	}

	if r := cmd.Result; r != nil {
		dto.Result = &CommandResultDTO{Kind: r.Kind, ID: r.ID, Distance: r.Distance, Quantity: r.Quantity}
		if r.Location != nil {
			loc := ToCoordinateDTO(*r.Location)
			dto.Result.Location = &loc
		}
	}

	return dto
}

// ToCommandDTOs converts a list of commands
func ToCommandDTOs(cmds []*domain.Command) []CommandDTO {
	dtos := make([]CommandDTO, 0, len(cmds))
	for _, c := range cmds {
		dtos = append(dtos, *ToCommandDTO(c))
	}
	return dtos
}

// ToBinDTO converts a domain Bin to BinDTO
func ToBinDTO(bin *domain.Bin) *BinDTO {
	if bin == nil {
		return nil
	}
	return &BinDTO{
		ID:                bin.ID,
		RackID:            bin.RackID,
		AisleID:           bin.AisleID,
		ZoneID:            bin.ZoneID,
		Code:              bin.Code,
		LocationCode:      bin.LocationCode,
		Level:             bin.Level,
		Position:          bin.Position,
		Capacity:          bin.Capacity,
		CurrentLoad:       bin.CurrentLoad,
		AvailableCapacity: bin.AvailableCapacity(),
		Barcode:           bin.Barcode,
		Coordinate:        ToCoordinateDTO(bin.Coordinate),
	}
}

// ToItemDTO converts a domain Item to ItemDTO
func ToItemDTO(item *domain.Item) *ItemDTO {
	if item == nil {
		return nil
	}
	return &ItemDTO{
		ID:        item.ID,
		SKU:       item.SKU,
		Name:      item.Name,
		Barcode:   item.Barcode,
		Weight:    item.Weight,
		CreatedAt: item.CreatedAt,
	}
}

// ToStockLevelsDTO summarises stock units of one item
func ToStockLevelsDTO(itemID string, units []*domain.StockUnit) *StockLevelsDTO {
	dto := &StockLevelsDTO{ItemID: itemID, Units: make([]StockUnitDTO, 0, len(units))}
	for _, u := range units {
		dto.Total += u.Quantity
		dto.Units = append(dto.Units, StockUnitDTO{
			BinID:      u.BinID,
			ItemID:     u.ItemID,
			Quantity:   u.Quantity,
			ExpiryDate: u.ExpiryDate,
			BatchID:    u.BatchID,
			UpdatedAt:  u.UpdatedAt,
		})
	}
	return dto
}
