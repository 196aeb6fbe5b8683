// Package kitti owns the on-disk KITTI sequence formats.
//
// Responsibilities: 2D/3D box geometry, per-frame calibration and the
// rectified-camera → sensor transform, the three annotation readers
// (KITTI label_2, the "philly" label convention and Supervisely point-cloud
// JSON), and the zero-padded frame index path convention.
// Key types: Box2D, Box3D, Pose, CalibrationSet, Object, Dataset.
//
// Every Box3D returned by the readers in this package has its pose expressed
// in the sensor (velodyne) frame, except PhillyLabelParser which keeps the
// raw label frame untouched.
package kitti
