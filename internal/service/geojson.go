package service

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/noah-isme/ppdb-map-api/internal/dto"
)

// MapFeatureCollection renders map points as GeoJSON point features. Popup fields and
// marker styling travel as feature properties.
func MapFeatureCollection(points []dto.MapPoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, point := range points {
		feature := geojson.NewFeature(orb.Point{point.Longitude, point.Latitude})
		feature.Properties["color"] = point.Color
		feature.Properties["shape"] = string(point.Shape)
		feature.Properties["pendaftaran_id"] = point.Popup.RegistrationID
		feature.Properties["nama_sekolah_tujuan"] = optionalString(point.Popup.DestinationSchool)
		feature.Properties["status_penerimaan"] = optionalString(point.Popup.AdmissionStatus)
		fc.Append(feature)
	}
	return fc
}

// MapBounds returns the bounding box of the points, or false when there are none.
func MapBounds(points []dto.MapPoint) (orb.Bound, bool) {
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, 0, len(points))
	for _, point := range points {
		mp = append(mp, orb.Point{point.Longitude, point.Latitude})
	}
	return mp.Bound(), true
}

func optionalString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
