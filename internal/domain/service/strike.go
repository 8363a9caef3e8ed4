package service

import "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"

// StrikeSelector picks the OTM strike to trade for a side.
type StrikeSelector interface {
	Name() string
	Select(rows []models.ChainRow, req models.StrikeRequest) models.StrikeSelection
}
