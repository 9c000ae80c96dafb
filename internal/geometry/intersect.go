package geometry

import "github.com/paulmach/orb"

// selfIntersects reports whether any two edges of a closed ring touch other
// than at their shared vertex.
func selfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1 // closed: last point repeats the first
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := ring[i], ring[i+1]
		for j := i + 1; j < n; j++ {
			b1, b2 := ring[j], ring[j+1]
			switch {
			case j == i+1:
				// Adjacent edges share a2 == b1; they only overlap when the
				// ring folds back on itself.
				if onSegment(a1, a2, b2) || onSegment(b1, b2, a1) {
					return true
				}
			case i == 0 && j == n-1:
				// First and last edges share ring[0].
				if onSegment(a1, a2, b1) || onSegment(b1, b2, a2) {
					return true
				}
			default:
				if segmentsIntersect(a1, a2, b1, b2) {
					return true
				}
			}
		}
	}
	return false
}

func orientation(p, q, r orb.Point) int {
	v := (q[1]-p[1])*(r[0]-q[0]) - (q[0]-p[0])*(r[1]-q[1])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// onSegment reports whether r lies on segment pq (collinear and within it).
func onSegment(p, q, r orb.Point) bool {
	if orientation(p, q, r) != 0 {
		return false
	}
	return r[0] <= max(p[0], q[0]) && r[0] >= min(p[0], q[0]) &&
		r[1] <= max(p[1], q[1]) && r[1] >= min(p[1], q[1])
}

func segmentsIntersect(p1, q1, p2, q2 orb.Point) bool {
	o1 := orientation(p1, q1, p2)
	o2 := orientation(p1, q1, q2)
	o3 := orientation(p2, q2, p1)
	o4 := orientation(p2, q2, q1)

	if o1 != o2 && o3 != o4 && o1 != 0 && o2 != 0 && o3 != 0 && o4 != 0 {
		return true
	}
	return onSegment(p1, q1, p2) || onSegment(p1, q1, q2) ||
		onSegment(p2, q2, p1) || onSegment(p2, q2, q1)
}
