// Package lidar decodes velodyne point clouds and classifies points against
// annotated oriented boxes. Frame assembly and caching live in l2frames.
package lidar
