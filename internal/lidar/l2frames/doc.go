// Package l2frames assembles per-frame bundles from a KITTI sequence and
// caches them for interactive navigation.
//
// A Loader resolves the calibration, annotation and velodyne files of one
// frame index, normalises every box into the sensor frame, and classifies
// the point cloud against the boxes. FrameCache keeps the most recently
// used bundles so scrubbing and autoplay do not reload from disk.
package l2frames
