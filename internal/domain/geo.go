package domain

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// NearestParkings returns up to limit spaces ordered by distance from (lat, lng).
func NearestParkings(spaces []ParkingSpace, lat, lng float64, limit int) []NearbyParking {
	out := make([]NearbyParking, 0, len(spaces))
	for _, p := range spaces {
		out = append(out, NearbyParking{
			ParkingSpace: p,
			DistanceKm:   HaversineKm(lat, lng, p.Latitude, p.Longitude),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
