package printer

import "strconv"

var threadGroupOpNames = [...]string{
	"sync_block", "warp_active_sum", "warp_active_all_equal", "warp_read_lane_at", "warp_first_active_lane",
}

var resourceQueryOpNames = [...]string{
	"buffer_size", "texture_size", "accel_instance_transform",
}

var resourceReadOpNames = [...]string{
	"buffer", "texture", "bindless_buffer", "trace_closest", "trace_any", "query_all", "query_any",
}

var resourceWriteOpNames = [...]string{
	"buffer", "texture", "accel_instance_transform",
}

var rayQueryReadOpNames = [...]string{
	"world_space_ray", "procedural_candidate_hit", "triangle_candidate_hit", "committed_hit",
	"is_triangle_candidate", "is_procedural_candidate", "is_terminated",
}

var rayQueryWriteOpNames = [...]string{
	"commit_triangle", "commit_procedural", "terminate", "proceed",
}

func opName(names []string, op int) string {
	if op < len(names) {
		return names[op]
	}
	return "op" + strconv.Itoa(op)
}
